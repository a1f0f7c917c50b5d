package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/domain/devtools"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/tracing"
)

type document string

const (
	documentNone    document = ""
	documentVersion document = "version"
	documentTargets document = "targets"
)

type relayInfoKey struct{}

// relayInfo carries what ModifyResponse needs to know about the inbound
// request, since it only sees the outbound one.
type relayInfo struct {
	path         string
	externalBase string
	traceID      tracing.TraceID
}

func (p *Proxy) newHTTPRelay() *httputil.ReverseProxy {
	transport := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   p.opts.HandshakeTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: p.opts.ResponseTimeout,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		// Metadata bodies are rewritten as sent; never ask for compression
		DisableCompression: true,
	}

	return &httputil.ReverseProxy{
		Rewrite:        p.rewriteRequest,
		Transport:      transport,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleUpstreamError,
		// Flush immediately so long polls and streamed bodies are not held back
		FlushInterval: -1,
		ErrorLog:      zap.NewStdLog(p.logger),
	}
}

// rewriteRequest points the outbound request at the upstream. SetURL also
// resets Host, so the browser sees its own address and accepts the request.
func (p *Proxy) rewriteRequest(pr *httputil.ProxyRequest) {
	pr.SetURL(p.upstream.url)

	info := relayInfo{
		path:         pr.In.URL.Path,
		externalBase: p.ExternalBase(pr.In),
		traceID:      tracing.GetTraceID(pr.In.Context()),
	}
	pr.Out = pr.Out.WithContext(context.WithValue(pr.Out.Context(), relayInfoKey{}, info))

	if !p.opts.ForwardOrigin {
		pr.Out.Header.Del("Origin")
	}
}

func (p *Proxy) documentFor(path string) document {
	switch strings.TrimRight(path, "/") {
	case devtools.VersionPath:
		return documentVersion
	case devtools.ListPath, devtools.ListAliasPath:
		if p.opts.RewriteTargetList {
			return documentTargets
		}
	}
	return documentNone
}

// modifyResponse rewrites debugger URLs in metadata documents. A document
// that cannot be rewritten is passed through untouched; only a failure to
// read the upstream body is an error.
func (p *Proxy) modifyResponse(resp *http.Response) error {
	info, ok := resp.Request.Context().Value(relayInfoKey{}).(relayInfo)
	if !ok {
		return nil
	}
	doc := p.documentFor(info.path)
	if doc == documentNone || resp.StatusCode != http.StatusOK {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrUpstreamUnreachable, info.path, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	logger := p.logger.With(
		zap.String("path", info.path),
		zap.String("external_base", info.externalBase),
		zap.String("trace_id", string(info.traceID)),
	)

	body, decoded, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		logger.Warn("Metadata body could not be decoded, passing through",
			zap.String("kind", "malformed_metadata"), zap.Error(err))
		p.metrics.RecordRewrite(string(doc), "undecodable")
		return nil
	}

	var out []byte
	switch doc {
	case documentVersion:
		var fixed string
		out, fixed, err = devtools.RewriteVersion(body, info.externalBase)
		if err == nil {
			logger.Debug("Rewrote debugger URL", zap.String("url", fixed))
		}
	case documentTargets:
		var n int
		out, n, err = devtools.RewriteTargets(body, info.externalBase)
		if err == nil {
			logger.Debug("Rewrote target list", zap.Int("targets", n))
		}
	}
	if err != nil {
		logger.Warn("Metadata not rewritten, passing through",
			zap.String("kind", "malformed_metadata"), zap.Error(err))
		p.metrics.RecordRewrite(string(doc), "malformed")
		return nil
	}

	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	resp.Header.Del("Transfer-Encoding")
	if decoded {
		resp.Header.Del("Content-Encoding")
	}
	p.metrics.RecordRewrite(string(doc), "rewritten")
	return nil
}

// decodeBody undoes gzip content coding. Identity bodies are returned as is.
func decodeBody(raw []byte, encoding string) ([]byte, bool, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, false, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, false, err
		}
		defer zr.Close()
		body, err := io.ReadAll(zr)
		if err != nil {
			return nil, false, err
		}
		return body, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// handleUpstreamError answers 502, or 504 when the upstream timed out. The
// relay never retries.
func (p *Proxy) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away; nobody is left to answer
		p.logger.Debug("Client canceled proxied request", zap.String("path", r.URL.Path))
		return
	}

	status := http.StatusBadGateway
	if isTimeout(err) {
		status = http.StatusGatewayTimeout
	}
	if !errors.Is(err, ErrUpstreamUnreachable) {
		err = fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}

	p.logger.Warn("Upstream request failed",
		zap.String("kind", "upstream_unreachable"),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream", p.upstream.String()),
		zap.Int("status", status),
		tracing.Field(r.Context()),
		zap.Error(err),
	)
	p.metrics.RecordUpstreamError("http")

	writeError(w, status, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body, mErr := sonic.Marshal(errorBody{Error: err.Error(), Status: status})
	if mErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

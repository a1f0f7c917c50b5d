/*
Command cdpgate runs the CDP reverse proxy and the endpoint resolver.

	cdpgate serve --upstream http://127.0.0.1:9222 --port 9223
	cdpgate resolve proxied=https://sandbox.example.com direct=http://10.0.0.7:9222

Configuration is read from the environment (see package config); flags win
over environment variables. Logs go to stderr, so the only thing resolve
writes to stdout is the debugger URL.
*/
package main

// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - POST /check reports whether robots.txt permits scraping a URL.
//   - POST /scrape returns the raw text of a URL fetched without a browser.
//   - POST /scrape/rendered renders a URL in a headless browser and saves its
//     visible text as the page later queries run against.
//   - POST /query asks the language model about the saved page.
//   - GET / and /static/* serve the browser UI.
//   - GET /healthz and /metrics for probes and Prometheus scraping.
package api

// Package portalclient reads and writes the settings of a clock in
// configuration mode through its portal.
//
//	c := portalclient.NewClient("http://192.168.4.1")
//	rec, ok, err := c.GetSettings(ctx)
//	err = c.PostSettings(ctx, store.Record{SSID: "HomeNet", SSIDPSK: "...", APIKey: "...", TZ: "auto"})
//
// Transport failures and 5xx responses are retried with exponential
// backoff. A 400 means the portal rejected the form and is returned as is.
package portalclient

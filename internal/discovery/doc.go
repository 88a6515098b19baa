// Package discovery advertises and finds clocks over mDNS.
//
// While in configuration mode a clock registers its portal as an
// "_http._tcp" service named "NixieClock XXXX", where XXXX are the first two
// bytes of the access point MAC in hex. The TXT record carries "path=/" and
// "mode=config". The operator CLI browses for those instances.
//
// # Usage Example
//
//	stop, err := discovery.Responder{}.Advertise("NixieClock 5CCF", 80)
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
//	devices, err := discovery.NewScanner().ScanForDevices(ctx)
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The operator must be joined to the clock's access point
// - Firewall must allow mDNS (UDP port 5353)
package discovery

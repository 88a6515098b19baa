// Package behavior implements the two operating modes of the clock and the
// supervisor that switches between them.
//
// The device boots into configuration mode: it opens a soft access point
// named "NixieClock XXXX", serves the settings portal and advertises it
// over mDNS. Once the portal has seen no request for the idle timeout, the
// supervisor tears configuration mode down completely and constructs clock
// mode. Clock mode loads the stored settings once, joins the configured
// network, resolves the time and resyncs on a daily cadence. It never goes
// back to configuration mode; that takes a restart.
//
// Everything runs on the control loop goroutine. The portal's request
// handlers only bump an atomic counter that ConfigMode.Tick reads.
//
//	sup := behavior.NewSupervisor(ctx, opts)
//	err := sup.Run(ctx) // ticks every LoopInterval until ctx is done
package behavior

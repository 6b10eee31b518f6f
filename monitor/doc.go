// Package monitor runs the periodic target probe cycle.
//
// # Overview
//
// Each cycle the monitor fans out one probe per configured target, all
// concurrent, each bounded by its own timeout, so one hanging target never
// delays another's status. When the cycle joins, every target's status is
// atomically replaced in the state store and the cycle's metrics are handed
// to the publisher: TargetStatus (0/1) and TargetResponseTime per target
// (response time only when online), plus TotalOnline/TotalOffline/
// TotalDevices summary counts.
//
// Cycles never overlap: an overrunning cycle simply delays the next one.
//
// # Usage
//
//	mon, _ := monitor.New(monitor.Config{
//	    Store:     store,
//	    Publisher: pub,
//	    Probers:   probers,
//	    Interval:  time.Minute,
//	})
//	mon.Start(ctx)
//	defer mon.Stop()
package monitor

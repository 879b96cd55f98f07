// Package connection keeps the probe's link to a device alive.
//
// A Manager wraps the dial operation in a connect state machine with
// automatic redial: when the link drops mid-run (supervision timeout,
// device reset, cable pulled on the bench), the manager redials with
// exponential backoff until the device answers again or the manager is
// closed. The probe decides per session whether a lost link should be
// chased or surfaced.
package connection

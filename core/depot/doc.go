// Package depot ranks the buses parked at an electric bus depot and decides
// which of them receive one of the limited chargers for the current cycle.
//
// An evaluation is a single snapshot computation:
//  1. Sort buses by state of charge, lowest first. Ties keep telemetry order.
//  2. Assign the first min(chargers, buses) buses to a charger.
//  3. Flag every bus below the minimum dispatch SoC as a dispatch risk.
//
// Summarize derives fleet metrics from the prioritized records and Insights
// turns those metrics into operator messages.
//
// The maintenance flag carried by each bus is informational. It is neither
// used to exclude a bus from charging nor to force it into dispatch risk.
//
// Every function is pure: inputs are never mutated and no state survives
// between calls, so cycles can be run from any goroutine.
package depot

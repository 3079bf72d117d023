// Package scanning implements the acquisition chain: a forest of
// acquisition masters and slaves walked phase by phase to run a scan.
//
// Masters pace the acquisition and trigger the devices below them,
// slaves produce data through acquisition channels. An
// AcquisitionChain assembles objects into a tree, and one
// AcquisitionChainIter per top master drives the phase protocol:
// apply-parameters, prepare and start run top-down, wait-ready and
// stop run bottom-up. A Runner loops a chain through its iterations,
// and a StreamPublisher forwards channel emissions into Redis
// streams.
package scanning

// Package versioning carries the build identity stamped into the binary.
package versioning

// Version is the release the running binary was built from. Overridden at
// build time:
//
//	go build -ldflags "-X github.com/mattnewell-cam/AgentPayments/internal/versioning.Version=v1.2.0"
var Version = "dev"

package canopy

// Version is the canopy release version. It is overridable at build time:
//
//	go build -ldflags "-X github.com/aretw0/canopy.Version=v1.2.3"
var Version = "0.1.0-dev"

package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves a short ID identifying the machine, hashed so the raw
// machine ID is not published. It's empty if unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("ledchain")
	if err != nil {
		glog.Warningf("machine ID unavailable: %v", err)
		return ""
	}
	return id[:12]
}

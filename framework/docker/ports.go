package docker

import (
	"net"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

// publishedPorts converts the port list of a container summary into a nat.PortMap.
// Exposed ports without a host binding are kept with an empty binding list.
func publishedPorts(c container.Summary) nat.PortMap {
	if len(c.Ports) == 0 {
		return nil
	}

	ports := nat.PortMap{}
	for _, p := range c.Ports {
		port, err := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
		if err != nil {
			continue
		}
		if _, ok := ports[port]; !ok {
			ports[port] = []nat.PortBinding{}
		}
		if p.PublicPort == 0 {
			continue
		}
		ports[port] = append(ports[port], nat.PortBinding{
			HostIP:   p.IP,
			HostPort: strconv.Itoa(int(p.PublicPort)),
		})
	}
	return ports
}

// GetHostPort returns the first host address bound to portID, e.g. "8545/tcp" → "0.0.0.0:8545".
// If the port is not published, an empty string is returned.
func GetHostPort(ports nat.PortMap, portID string) string {
	bindings := ports[nat.Port(portID)]
	if len(bindings) == 0 {
		return ""
	}
	return net.JoinHostPort(bindings[0].HostIP, bindings[0].HostPort)
}

// Endpoints returns "container-port -> host-address" descriptions of every published port,
// sorted by container port.
func Endpoints(ports nat.PortMap) []string {
	keys := make([]nat.Port, 0, len(ports))
	for port := range ports {
		keys = append(keys, port)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Int() == keys[j].Int() {
			return keys[i].Proto() < keys[j].Proto()
		}
		return keys[i].Int() < keys[j].Int()
	})

	var out []string
	for _, port := range keys {
		host := GetHostPort(ports, string(port))
		if host == "" {
			continue
		}
		out = append(out, string(port)+" -> "+host)
	}
	return out
}

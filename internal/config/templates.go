package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ChannelSocketCAN, "":
		return socketcanTemplate, nil
	case ChannelSim:
		return simTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const socketcanTemplate = `channel = "socketcan"
interface = "can0"

rx_timeout = "2ms"
tx_timeout = "5ms"
idle_sleep = "50us"
group_timeout = "50ms"

reliable_capacity = 10
reliable_retries = 20
sustained_full_limit = 50
send_retry_limit = 200

safe_stop = true
http_addr = "127.0.0.1:7080"
heartbeat = "5s"
# record_path = "session.armrec"
`

const simTemplate = `channel = "sim"

rx_timeout = "2ms"
tx_timeout = "5ms"
idle_sleep = "50us"
group_timeout = "50ms"

reliable_capacity = 10
reliable_retries = 20
sustained_full_limit = 50
send_retry_limit = 200

safe_stop = true
http_addr = "127.0.0.1:7080"
heartbeat = "2s"
`

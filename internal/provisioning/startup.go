package provisioning

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// The boot disk survives instance deletion but a re-created instance gets fresh
// host keys. The script keeps a copy of the first set of keys on the disk and
// restores it on every later boot, so the host fingerprint never changes.
const startupScriptTemplate = `#!/bin/bash

sleep {{.Delay}}
if [ -d "{{.HostKeyDir}}" ]
then
cp {{.HostKeyDir}}/ssh_host_* /etc/ssh/
else
mkdir {{.HostKeyDir}}
cp /etc/ssh/ssh_host_* {{.HostKeyDir}}/
fi`

const (
	DefaultHostKeyDir   = "/etc/ssh/ssh_host"
	DefaultStartupDelay = 20
)

// StartupScriptData represents the data for the startup script template
type StartupScriptData struct {
	HostKeyDir string
	Delay      int
}

// GenerateStartupScript renders the startup-script metadata value
func GenerateStartupScript(data StartupScriptData) (string, error) {
	tmpl, err := template.New("startup-script").Parse(startupScriptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse startup script template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute startup script template: %w", err)
	}

	return buf.String(), nil
}

// SSHKeysValue formats the ssh-keys metadata value for a single login.
func SSHKeysValue(user, publicKey string) string {
	return user + ":" + strings.TrimSpace(publicKey)
}

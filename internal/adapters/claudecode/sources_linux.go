//go:build linux

package claudecode

func platformSources(credentialsPath string) []Source {
	return []Source{
		execSource(runCommand, "secret-tool", "lookup", "service", keychainService),
		fileSource(credentialsPath),
	}
}

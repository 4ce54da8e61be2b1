//go:build darwin

package claudecode

func platformSources(credentialsPath string) []Source {
	return []Source{
		execSource(runCommand, "security", "find-generic-password", "-s", keychainService, "-w"),
		fileSource(credentialsPath),
	}
}

//go:build !darwin && !linux

package claudecode

func platformSources(credentialsPath string) []Source {
	return []Source{
		fileSource(credentialsPath),
	}
}

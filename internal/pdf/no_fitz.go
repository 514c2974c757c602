//go:build !fitz

package pdf

func newMuPDFBackend(BackendConfig) (Backend, error) {
	return nil, ErrBackendUnavailable
}

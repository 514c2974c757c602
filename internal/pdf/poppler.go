package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// Keep pdfcpu from creating a config dir under the user's home.
	api.DisableConfigDir()
}

// PopplerBackend counts pages with pdfcpu and renders them with pdftoppm.
type PopplerBackend struct {
	cfg BackendConfig
}

// NewPopplerBackend creates the pdftoppm backend.
func NewPopplerBackend(cfg BackendConfig) *PopplerBackend {
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	return &PopplerBackend{cfg: cfg}
}

func (b *PopplerBackend) Name() string { return BackendPoppler }

// Available reports whether the pdftoppm binary can be found.
func (b *PopplerBackend) Available() bool {
	_, err := exec.LookPath(b.cfg.PdftoppmPath)
	return err == nil
}

func (b *PopplerBackend) Open(_ context.Context, path string) (Source, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page tree: %w", err)
	}
	return &popplerSource{backend: b, path: path, pages: n}, nil
}

type popplerSource struct {
	backend *PopplerBackend
	path    string
	pages   int
}

func (s *popplerSource) PageCount() int { return s.pages }

func (s *popplerSource) RenderPage(ctx context.Context, index int, dst string) error {
	if index < 1 || index > s.pages {
		return fmt.Errorf("page %d out of range 1..%d", index, s.pages)
	}
	// pdftoppm appends the extension itself when -singlefile is set.
	prefix := strings.TrimSuffix(dst, ".png")
	page := strconv.Itoa(index)
	cmd := exec.CommandContext(ctx, s.backend.cfg.PdftoppmPath, //nolint:gosec // G204: tool path comes from config
		"-png", "-r", strconv.Itoa(s.backend.cfg.DPI),
		"-f", page, "-l", page, "-singlefile",
		s.path, prefix)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		_ = os.Remove(prefix + ".png")
		return fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if prefix+".png" != dst {
		return os.Rename(prefix+".png", dst)
	}
	return nil
}

func (s *popplerSource) Close() error { return nil }

package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/trunov/converthub/internal/routing"
)

// commandStrategy shells out to one external tool. The context kills the
// process on timeout or cancellation.
type commandStrategy struct {
	id   routing.StrategyID
	bin  string
	args func(in, out string) []string
}

func (c *commandStrategy) ID() routing.StrategyID { return c.id }

func (c *commandStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, c.bin, c.args(inputPath, outputPath)...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &Error{Strategy: c.id, Kind: KindToolMissing, Err: fmt.Errorf("%s: %w", c.bin, err)}
	}
	return &Error{Strategy: c.id, Kind: KindExecutionFailed, Err: fmt.Errorf("%s: %v: %s", c.bin, err, firstLine(output))}
}

// sofficeStrategy drives LibreOffice headless. soffice only writes into an
// output directory under the input's base name, so the conversion runs in a
// scratch dir and the produced file is renamed to outputPath.
type sofficeStrategy struct{}

func (s *sofficeStrategy) ID() routing.StrategyID { return routing.StrategySoffice }

func (s *sofficeStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	outExt := strings.TrimPrefix(filepath.Ext(outputPath), ".")
	if outExt == "" {
		return &Error{Strategy: s.ID(), Kind: KindExecutionFailed, Err: errors.New("output path has no extension")}
	}

	scratch, err := os.MkdirTemp("", "soffice-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	cmd := exec.CommandContext(ctx, "soffice", "--headless", "--convert-to", outExt, "--outdir", scratch, inputPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return &Error{Strategy: s.ID(), Kind: KindToolMissing, Err: fmt.Errorf("soffice: %w", err)}
		}
		return &Error{Strategy: s.ID(), Kind: KindExecutionFailed, Err: fmt.Errorf("soffice: %v: %s", err, firstLine(output))}
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	produced := filepath.Join(scratch, base+"."+outExt)
	if _, err := os.Stat(produced); err != nil {
		return &Error{Strategy: s.ID(), Kind: KindExecutionFailed, Err: fmt.Errorf("soffice produced no output: %s", firstLine(output))}
	}
	if err := os.Rename(produced, outputPath); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		data, readErr := os.ReadFile(produced)
		if readErr != nil {
			return readErr
		}
		return os.WriteFile(outputPath, data, 0644)
	}
	return nil
}

func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

package render

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

func ParseColorMode(raw string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ColorAuto.String():
		return ColorAuto, nil
	case ColorAlways.String():
		return ColorAlways, nil
	case ColorNever.String():
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode %q (want auto, always or never)", raw)
	}
}

var (
	detectDarkMode = darkmode.IsDarkMode
	isTerminal     = func(w io.Writer) bool {
		f, ok := w.(*os.File)
		return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
)

// WriteDiff writes a unified diff to w, highlighted when mode asks for it
// or, in auto mode, when w is a terminal.
func WriteDiff(w io.Writer, diff string, mode ColorMode) error {
	if mode == ColorNever || (mode == ColorAuto && !isTerminal(w)) {
		_, err := io.WriteString(w, diff)
		return err
	}
	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, diff)
	if err != nil {
		return err
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return formatter.Format(w, styleFor(mode), iterator)
}

func styleFor(mode ColorMode) *chroma.Style {
	name := "github"
	if mode == ColorAuto && detectDarkMode != nil {
		dark, err := detectDarkMode()
		if err != nil {
			slog.Debug("detect dark-mode", slog.Any("error", err))
		} else if dark {
			name = "github-dark"
		}
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}

package fingerprint

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// ReferenceFonts are the font names probed for. Only the number found is
// reported.
var ReferenceFonts = []string{
	"Arial",
	"Verdana",
	"Times New Roman",
	"Courier New",
	"Georgia",
	"Palatino",
	"Garamond",
	"Comic Sans MS",
	"Trebuchet MS",
	"Impact",
	"Helvetica",
	"DejaVu Sans",
	"Liberation Sans",
	"Noto Sans",
	"Ubuntu",
}

// probeText is wide enough for metric differences between faces to show.
const probeText = "mmmmmmmmmmlli"

const probeSize = 72

// FontSource resolves a font name to a face. ok is false when the font is
// not installed.
type FontSource interface {
	Face(name string) (face font.Face, ok bool)
}

// CountFonts measures probeText with the fallback face, then with each
// reference font falling back to the same face, and counts the names whose
// width differs. The result is within [0, len(names)].
func CountFonts(src FontSource, names []string) int {
	fallback := basicfont.Face7x13
	baseline := font.MeasureString(fallback, probeText)

	count := 0
	for _, name := range names {
		if src == nil {
			break
		}
		face, ok := src.Face(name)
		if !ok || face == nil {
			continue
		}
		if font.MeasureString(face, probeText) != baseline {
			count++
		}
		_ = face.Close() //nolint:errcheck // measured already
	}
	return count
}

// DirFontSource finds fonts by file name under a set of directories.
// "Times New Roman" matches files such as TimesNewRoman.ttf or
// times-new-roman-bold.otf.
type DirFontSource struct {
	dirs []string

	once  sync.Once
	index map[string]string
}

// NewDirFontSource returns a source over dirs.
func NewDirFontSource(dirs ...string) *DirFontSource {
	return &DirFontSource{dirs: dirs}
}

// NewSystemFontSource returns a source over the XDG font directories.
func NewSystemFontSource() *DirFontSource {
	return NewDirFontSource(xdg.FontDirs...)
}

// Face returns the face of the first file whose normalized name starts
// with the normalized font name.
func (s *DirFontSource) Face(name string) (font.Face, bool) {
	s.once.Do(s.buildIndex)

	key := fontKey(name)
	if key == "" {
		return nil, false
	}

	var match string
	for stem, path := range s.index {
		if strings.HasPrefix(stem, key) && (match == "" || path < match) {
			match = path
		}
	}
	if match == "" {
		return nil, false
	}

	face, err := loadFace(match)
	if err != nil {
		return nil, false
	}
	return face, true
}

func (s *DirFontSource) buildIndex() {
	s.index = make(map[string]string)
	for _, dir := range s.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ttf", ".otf", ".ttc", ".otc":
			default:
				return nil
			}
			stem := fontKey(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			if _, exists := s.index[stem]; !exists {
				s.index[stem] = path
			}
			return nil
		})
	}
}

// fontKey lower-cases name and drops separators.
func fontKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}

func loadFace(path string) (font.Face, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var parsed *opentype.Font
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttc", ".otc":
		collection, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		parsed, err = collection.Font(0)
		if err != nil {
			return nil, err
		}
	default:
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, err
		}
	}

	return opentype.NewFace(parsed, &opentype.FaceOptions{Size: probeSize, DPI: 72})
}

package service

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/iliyamo/country-cache/internal/model"
	"github.com/iliyamo/country-cache/internal/utils"
)

const (
	imageWidth  = 800
	imageHeight = 480
	topListSize = 5
)

// ImageService renders the summary artifact after each sync and serves the
// most recent render. The PNG is written atomically (temp file + rename) so
// a concurrent read never sees a partial image.
type ImageService struct {
	path string
	mu   sync.RWMutex
}

// NewImageService creates an ImageService writing to and reading from path.
func NewImageService(path string) *ImageService {
	return &ImageService{path: path}
}

// Generate renders the summary image for the given record set and refresh
// timestamp: total count, the top five countries by estimated GDP, and the
// timestamp of the run.
func (s *ImageService) Generate(countries []*model.Country, refreshedAt string) error {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	lines := []string{
		"Country Data Summary",
		"",
		fmt.Sprintf("Total countries: %d", len(countries)),
		fmt.Sprintf("Last refreshed:  %s", refreshedAt),
		"",
		fmt.Sprintf("Top %d by estimated GDP:", topListSize),
	}
	for i, c := range topByGDP(countries, topListSize) {
		lines = append(lines, fmt.Sprintf("  %d. %-32s %.2f", i+1, c.Name, utils.Round(*c.EstimatedGDP, 2)))
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	y := 40
	for _, line := range lines {
		d.Dot = fixed.P(40, y)
		d.DrawString(line)
		y += 24
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create image directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "summary-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Buffer returns the bytes of the most recently generated image, or nil
// when no image has been generated yet.
func (s *ImageService) Buffer() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return buf, nil
}

// topByGDP returns up to n countries with the highest non-null estimated
// GDP, highest first.
func topByGDP(countries []*model.Country, n int) []*model.Country {
	withGDP := make([]*model.Country, 0, len(countries))
	for _, c := range countries {
		if c.EstimatedGDP != nil {
			withGDP = append(withGDP, c)
		}
	}
	sort.Slice(withGDP, func(i, j int) bool {
		return *withGDP[i].EstimatedGDP > *withGDP[j].EstimatedGDP
	})
	if len(withGDP) > n {
		withGDP = withGDP[:n]
	}
	return withGDP
}

// Package catalog serves the read-only studio and service listings the sack
// prices against.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seed []byte

// Service is a purchasable offering of a studio.
type Service struct {
	ID          string            `json:"id"`
	StudioID    string            `json:"studio_id"`
	Name        string            `json:"name"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Unit        enums.ServiceUnit `json:"unit"`
	Category    string            `json:"category,omitempty"`
	SubCategory string            `json:"sub_category,omitempty"`
}

// Rate returns the priceable view of the service.
func (s Service) Rate() pricing.Rate {
	return pricing.Rate{BasePrice: s.BasePrice, Unit: s.Unit}
}

// Studio groups the services offered at one location.
type Studio struct {
	ID       string
	Name     string
	Services []Service
}

// Catalog is the lookup contract the sack engine depends on.
type Catalog interface {
	Service(ctx context.Context, studioID, serviceID string) (Service, error)
	Services(ctx context.Context, studioID string) ([]Service, error)
	StudioName(ctx context.Context, studioID string) string
}

// Static is an immutable in-memory catalog.
type Static struct {
	studios map[string]Studio
}

type rawCatalog struct {
	Studios []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Services []struct {
			ID          string `yaml:"id"`
			Name        string `yaml:"name"`
			BasePrice   string `yaml:"base_price"`
			Unit        string `yaml:"unit"`
			Category    string `yaml:"category"`
			SubCategory string `yaml:"sub_category"`
		} `yaml:"services"`
	} `yaml:"studios"`
}

// Default returns the embedded seed catalog.
func Default() (*Static, error) {
	return Load(strings.NewReader(string(seed)))
}

// LoadFile reads a YAML catalog from path, falling back to the seed when path is empty.
func LoadFile(path string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Static, error) {
	var raw rawCatalog
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	studios := make(map[string]Studio, len(raw.Studios))
	for _, rs := range raw.Studios {
		if rs.ID == "" {
			return nil, fmt.Errorf("catalog studio without id")
		}
		if _, dup := studios[rs.ID]; dup {
			return nil, fmt.Errorf("duplicate studio %q", rs.ID)
		}
		studio := Studio{ID: rs.ID, Name: rs.Name}
		seen := map[string]struct{}{}
		for _, svc := range rs.Services {
			if svc.ID == "" {
				return nil, fmt.Errorf("studio %q: service without id", rs.ID)
			}
			if _, dup := seen[svc.ID]; dup {
				return nil, fmt.Errorf("studio %q: duplicate service %q", rs.ID, svc.ID)
			}
			seen[svc.ID] = struct{}{}

			price, err := decimal.NewFromString(strings.TrimSpace(svc.BasePrice))
			if err != nil {
				return nil, fmt.Errorf("studio %q service %q: base price: %w", rs.ID, svc.ID, err)
			}
			if price.IsNegative() {
				return nil, fmt.Errorf("studio %q service %q: negative base price", rs.ID, svc.ID)
			}
			unit, err := enums.ParseServiceUnit(strings.ToLower(strings.TrimSpace(svc.Unit)))
			if err != nil {
				return nil, fmt.Errorf("studio %q service %q: %w", rs.ID, svc.ID, err)
			}
			studio.Services = append(studio.Services, Service{
				ID:          svc.ID,
				StudioID:    rs.ID,
				Name:        svc.Name,
				BasePrice:   price,
				Unit:        unit,
				Category:    svc.Category,
				SubCategory: svc.SubCategory,
			})
		}
		studios[rs.ID] = studio
	}
	return &Static{studios: studios}, nil
}

func (c *Static) Service(_ context.Context, studioID, serviceID string) (Service, error) {
	studio, ok := c.studios[studioID]
	if !ok {
		return Service{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "studio %q not found", studioID)
	}
	for _, svc := range studio.Services {
		if svc.ID == serviceID {
			return svc, nil
		}
	}
	return Service{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "service %q not found", serviceID)
}

func (c *Static) Services(_ context.Context, studioID string) ([]Service, error) {
	studio, ok := c.studios[studioID]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "studio %q not found", studioID)
	}
	out := make([]Service, len(studio.Services))
	copy(out, studio.Services)
	return out, nil
}

// StudioName returns the display name, or the id itself for unknown studios.
func (c *Static) StudioName(_ context.Context, studioID string) string {
	if studio, ok := c.studios[studioID]; ok && studio.Name != "" {
		return studio.Name
	}
	return studioID
}

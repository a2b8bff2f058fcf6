// Package seed loads catalog fixtures (providers, services, capabilities)
// from YAML and applies them to a store.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"

	"gopkg.in/yaml.v3"
)

type File struct {
	Providers    []ProviderEntry   `yaml:"providers"`
	Services     []ServiceEntry    `yaml:"services"`
	Capabilities []CapabilityEntry `yaml:"capabilities"`
}

type ProviderEntry struct {
	ID     string `yaml:"id"`
	Active *bool  `yaml:"active"`
}

type ServiceEntry struct {
	ID     string `yaml:"id"`
	Code   string `yaml:"code"`
	Active *bool  `yaml:"active"`
}

type CapabilityEntry struct {
	ProviderID string `yaml:"provider_id"`
	ServiceID  string `yaml:"service_id"`
}

// Target is the write side a seed file is applied to.
type Target interface {
	UpsertProvider(ctx context.Context, provider entities.Provider) error
	UpsertService(ctx context.Context, service entities.Service) error
	InsertCapability(ctx context.Context, mapping entities.CapabilityMapping) (bool, error)
}

type Summary struct {
	Providers           int
	Services            int
	CapabilitiesCreated int
	CapabilitiesKept    int
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	if err := file.validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

func (f File) validate() error {
	for i, p := range f.Providers {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("providers[%d]: id is required", i)
		}
	}
	for i, s := range f.Services {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("services[%d]: id is required", i)
		}
	}
	for i, c := range f.Capabilities {
		if strings.TrimSpace(c.ProviderID) == "" || strings.TrimSpace(c.ServiceID) == "" {
			return fmt.Errorf("capabilities[%d]: provider_id and service_id are required", i)
		}
	}
	return nil
}

// Apply upserts providers and services, then inserts capability mappings.
// Existing mappings are counted as kept.
func (f File) Apply(ctx context.Context, target Target, now time.Time) (Summary, error) {
	var summary Summary
	for _, provider := range f.providers() {
		if err := target.UpsertProvider(ctx, provider); err != nil {
			return summary, fmt.Errorf("upsert provider %s: %w", provider.ProviderID, err)
		}
		summary.Providers++
	}
	for _, service := range f.services() {
		if err := target.UpsertService(ctx, service); err != nil {
			return summary, fmt.Errorf("upsert service %s: %w", service.ServiceID, err)
		}
		summary.Services++
	}
	for _, entry := range f.Capabilities {
		mapping, err := entities.NewCapabilityMapping(entry.ProviderID, entry.ServiceID, now)
		if err != nil {
			return summary, err
		}
		created, err := target.InsertCapability(ctx, mapping)
		if err != nil {
			return summary, fmt.Errorf("insert capability %s/%s: %w", mapping.ProviderID, mapping.ServiceID, err)
		}
		if created {
			summary.CapabilitiesCreated++
		} else {
			summary.CapabilitiesKept++
		}
	}
	return summary, nil
}

// MemorySeed converts the file into the in-memory store's initial state.
func (f File) MemorySeed(now time.Time) memory.Seed {
	out := memory.Seed{
		Providers: f.providers(),
		Services:  f.services(),
	}
	for _, entry := range f.Capabilities {
		out.Capabilities = append(out.Capabilities, entities.CapabilityMapping{
			ProviderID: strings.TrimSpace(entry.ProviderID),
			ServiceID:  strings.TrimSpace(entry.ServiceID),
			Active:     true,
			CreatedAt:  now.UTC(),
		})
	}
	return out
}

func (f File) providers() []entities.Provider {
	out := make([]entities.Provider, 0, len(f.Providers))
	for _, p := range f.Providers {
		out = append(out, entities.Provider{
			ProviderID: strings.TrimSpace(p.ID),
			Active:     activeOrDefault(p.Active),
		})
	}
	return out
}

func (f File) services() []entities.Service {
	out := make([]entities.Service, 0, len(f.Services))
	for _, s := range f.Services {
		out = append(out, entities.Service{
			ServiceID: strings.TrimSpace(s.ID),
			Code:      entities.NormalizeServiceCode(s.Code),
			Active:    activeOrDefault(s.Active),
		})
	}
	return out
}

func activeOrDefault(value *bool) bool {
	if value == nil {
		return true
	}
	return *value
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/kv"
)

type RegistryEnricher struct {
	lookup KeyValueLookup
	log    zerolog.Logger
}

func NewRegistryEnricher(lookup KeyValueLookup, log zerolog.Logger) *RegistryEnricher {
	return &RegistryEnricher{lookup: lookup, log: log}
}

// Enrich fills owner, registration id, original color and model from the
// registry. A plate unknown to the registry is the common case and leaves
// the fields empty.
func (e *RegistryEnricher) Enrich(ctx context.Context, d *lpr.Detection) error {
	d.Owner = ""
	d.RenavamID = ""
	d.OriginalColor = ""
	d.Model = ""

	raw, found, err := e.lookup.Lookup(ctx, kv.NamespaceRenavam, d.Plate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if !found {
		return nil
	}

	entry, err := lpr.ParseRegistryEntry(raw)
	if err != nil {
		e.log.Warn().Err(err).Str("plate", d.Plate).Msg("registry entry is not valid JSON, skipping enrichment")
		return nil
	}

	d.RenavamID = entry.RenavamID.String()
	d.Owner = entry.Owner
	d.OriginalColor = entry.Color

	code := entry.MakeAndModel.String()
	if code == "" {
		return nil
	}

	model, found, err := e.lookup.Lookup(ctx, kv.NamespaceBrand, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if found {
		d.Model = model
	} else {
		e.log.Debug().Str("plate", d.Plate).Str("make_and_model", code).Msg("brand code not found")
	}
	return nil
}

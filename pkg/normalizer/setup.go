package normalizer

import (
	"fmt"

	"github.com/synaptica-ai/medrecords/pkg/profile"
	"github.com/synaptica-ai/medrecords/pkg/records"
	"github.com/synaptica-ai/medrecords/pkg/terminology"
)

// LoadPipeline builds a pipeline from an optional patient profile and lab
// terminology file. Without a terminology file the built-in catalog is used.
func LoadPipeline(parserVersion, profilePath, terminologyPath string) (*records.Pipeline, error) {
	prof, err := profile.Load(profilePath)
	if err != nil {
		return nil, fmt.Errorf("load patient profile: %w", err)
	}

	catalog := terminology.DefaultCatalog()
	if terminologyPath != "" {
		if catalog, err = terminology.Load(terminologyPath); err != nil {
			return nil, fmt.Errorf("load terminology: %w", err)
		}
	}

	return records.New(records.Options{
		ParserVersion: parserVersion,
		Profile:       prof,
		Terminology:   &catalog,
	}), nil
}

package model

import (
	"encoding/json"
	"errors"
)

// GroundingMetadata is the citation payload the generation service attaches to a
// response. It is kept verbatim as JSON.
type GroundingMetadata []byte

func (g GroundingMetadata) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	return g, nil
}

func (g *GroundingMetadata) UnmarshalJSON(data []byte) error {
	if g == nil {
		return errors.New("model.GroundingMetadata: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*g = nil
		return nil
	}
	*g = append((*g)[0:0], data...)
	return nil
}

type GroundingSource struct {
	URI   string
	Title string
	IsMap bool
}

const defaultSourceTitle = "Legal Resource"

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web"`
	Maps *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"maps"`
}

// Sources lists web and map sources that carry a URI. Unparseable metadata has no sources.
func (g GroundingMetadata) Sources() []GroundingSource {
	if len(g) == 0 {
		return nil
	}
	var payload struct {
		GroundingChunks []groundingChunk `json:"groundingChunks"`
	}
	if err := json.Unmarshal(g, &payload); err != nil {
		return nil
	}
	sources := make([]GroundingSource, 0, len(payload.GroundingChunks))
	for _, chunk := range payload.GroundingChunks {
		var source GroundingSource
		switch {
		case chunk.Web != nil && chunk.Web.URI != "":
			source = GroundingSource{URI: chunk.Web.URI, Title: chunk.Web.Title}
		case chunk.Maps != nil && chunk.Maps.URI != "":
			source = GroundingSource{URI: chunk.Maps.URI, Title: chunk.Maps.Title, IsMap: true}
		default:
			continue
		}
		if source.Title == "" {
			source.Title = defaultSourceTitle
		}
		sources = append(sources, source)
	}
	return sources
}

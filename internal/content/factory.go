package content

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"readaloud/internal/config"
	"readaloud/internal/storage"
)

// NewProvider builds the provider selected by content.source, wrapped in the
// chapter cache when it is enabled.
func NewProvider(cfg config.ContentConfig, store storage.Adapter, log logrus.FieldLogger) (Provider, error) {
	var p Provider
	switch cfg.Source {
	case config.SourceHTTP:
		p = NewHTTPProvider(cfg.BaseURL, cfg.DeviceID, cfg.Timeout, log)
	case config.SourceStore:
		p = NewStoreProvider(store, log)
	case config.SourceEPUB:
		p = NewEPUBProvider(cfg.EPUBPath)
	default:
		return nil, fmt.Errorf("unknown content source: %s", cfg.Source)
	}

	if cfg.Cache.Enabled {
		p = NewCachedProvider(p, store, cfg.Cache.MaxAge, log)
	}
	return p, nil
}

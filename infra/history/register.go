package history

import (
	"fmt"

	"github.com/kilianp07/busdepot/core/factory"
	corehistory "github.com/kilianp07/busdepot/core/history"
)

// init registers built-in history backends.
func init() {
	_ = corehistory.RegisterStore("jsonl", func(conf map[string]any) (corehistory.Store, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c)
	})

	_ = corehistory.RegisterStore("sqlite", func(conf map[string]any) (corehistory.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "history.db"
		}
		return NewSQLiteStore(c.Path)
	})

	_ = corehistory.RegisterStore("postgres", func(conf map[string]any) (corehistory.Store, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("postgres history: dsn required")
		}
		return NewPostgresStore(c.DSN)
	})
}

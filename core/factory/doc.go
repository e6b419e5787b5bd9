// Package factory provides a small generic registry used to instantiate
// telemetry providers, metrics sinks and history stores from configuration.
// Modules are defined by a type string and a map of raw settings. Factories
// decode the settings into typed structs and return the concrete
// implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[telemetry.Provider]()
//	reg.Register("file", func(conf map[string]any) (telemetry.Provider, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewFileProvider(c.Path), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "fleet.csv"}})
package factory

// Package factory is a small generic registry that turns a (type, raw
// settings) pair from the configuration file into a concrete
// implementation. Metric sinks are built this way: the config names a
// sink type such as "prometheus" or "influx" and the registered factory
// decodes the raw map into its own config struct.
//
// Example:
//
//	reg := factory.NewRegistry[Sink]()
//	reg.Register("influx", func(conf map[string]any) (Sink, error) {
//	    var c influxConf
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: raw})
package factory

// internal/core/ports/options.go
package ports

import "strings"

// Options es el mapa plano de opciones de un plugin, ya fusionado.
type Options map[string]interface{}

// Clone retorna una copia superficial.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// GlobalPrefix marca claves compartidas por todos los plugins (ej: "_fetchtimeout").
const GlobalPrefix = "_"

// ResolveOptions fusiona, para un plugin, sus opciones por defecto, las
// globales ("_clave") y las propias ("plugin:clave", sin prefijo). Las claves
// propias tienen precedencia sobre las globales.
func ResolveOptions(plugin string, defaults Options, flat map[string]interface{}) Options {
	out := defaults.Clone()
	prefix := plugin + ":"
	for k, v := range flat {
		if strings.HasPrefix(k, GlobalPrefix) {
			out[k] = v
		}
	}
	for k, v := range flat {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

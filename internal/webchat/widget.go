package webchat

import _ "embed"

// defaultWidgetJS is the embeddable chat widget served at /widget.js when
// no replacement is configured.
//
//go:embed widget.js
var defaultWidgetJS []byte

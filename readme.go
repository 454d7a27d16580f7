package saimeapi

import _ "embed"

//go:embed README.md
var Readme string

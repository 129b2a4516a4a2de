package mcp

import (
	"github.com/google/wire"

	appOntology "github.com/cocursor/ontosync/internal/application/ontology"
)

// ProviderSet MCP 接口层 ProviderSet
var ProviderSet = wire.NewSet(
	NewServer,
	wire.Bind(new(OntologyService), new(*appOntology.Orchestrator)),
)

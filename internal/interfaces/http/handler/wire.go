package handler

import (
	"github.com/google/wire"

	appOntology "github.com/cocursor/ontosync/internal/application/ontology"
)

// ProviderSet Handler ProviderSet
var ProviderSet = wire.NewSet(
	NewOntologyHandler,
	wire.Bind(new(OntologyService), new(*appOntology.Orchestrator)),
)

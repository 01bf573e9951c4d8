package application

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/application/analysis"
	"github.com/CaseMark/discovery-desktop/internal/application/cases"
	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	"github.com/CaseMark/discovery-desktop/internal/application/search"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	cases.ProviderSet,
	ingest.ProviderSet,
	analysis.ProviderSet,
	search.ProviderSet,
)

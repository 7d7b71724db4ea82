// Package all wires every built-in output sink into the output registry.
// Import it for side effects:
//
//	import _ "github.com/SitadziMado/migration-aggregator/internal/output/all"
package all

import (
	_ "github.com/SitadziMado/migration-aggregator/internal/output/file"
	_ "github.com/SitadziMado/migration-aggregator/internal/output/sqlite"
)

// This file is part of openMSX-core.
//
// openMSX-core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// openMSX-core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with openMSX-core.  If not, see <https://www.gnu.org/licenses/>.

package serialize

import "fmt"

// Migrator adapts decoded field values from an old on-disk version to the
// shape the current Serialize method expects. Most version differences are
// handled inline with VersionAtLeast (a field simply wasn't written by
// older versions, so it's left at its zero value); Migrator exists for the
// rarer case where a field was renamed, split across versions, or changed
// unit, so reading it correctly needs more than "was it present".
type Migrator func(oldVersion int, fields map[string]any) error

// versionTable is the process-wide registry of per-type migrators, keyed by
// type name - a direct structural port of src/serialize_core.hh's
// polymorphic-class version registry, adapted to plain Go functions instead
// of a class hierarchy.
var versionTable = map[string][]Migrator{}

// RegisterMigration adds m to typeName's list of migrators, run by Migrate
// in registration order. Intended to be called from an init() function
// alongside the type's own Serialize method.
func RegisterMigration(typeName string, m Migrator) {
	versionTable[typeName] = append(versionTable[typeName], m)
}

// Migrate runs every migrator registered for typeName against fields,
// passing the version recorded for typeName in ar. Each migrator decides
// for itself whether oldVersion is old enough to act on; Migrate does not
// filter by version itself, since a later migrator may depend on an
// earlier one's adjustment regardless of which version range either
// targets.
func Migrate(ar Archive, typeName string, fields map[string]any) error {
	oldVersion := ar.TypeVersion(typeName)
	for _, m := range versionTable[typeName] {
		if err := m(oldVersion, fields); err != nil {
			return fmt.Errorf("serialize: migrating %s from version %d: %w", typeName, oldVersion, err)
		}
	}
	return nil
}

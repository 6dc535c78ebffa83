package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
)

// ListVersions returns the versions found in migrationsPath in apply order.
// Every version must ship both an up and a down file.
func ListVersions(migrationsPath string) ([]uint, error) {
	drv, err := (&file.File{}).Open(sourceURL(migrationsPath))
	if err != nil {
		return nil, fmt.Errorf("open migrations source: %w", err)
	}
	defer drv.Close()

	var versions []uint
	version, err := drv.First()
	for err == nil {
		if err := checkPair(drv, version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
		version, err = drv.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("walk migrations: %w", err)
	}
	return versions, nil
}

func checkPair(drv source.Driver, version uint) error {
	up, _, err := drv.ReadUp(version)
	if err != nil {
		return fmt.Errorf("version %d has no up migration: %w", version, err)
	}
	_ = up.Close()

	down, _, err := drv.ReadDown(version)
	if err != nil {
		return fmt.Errorf("version %d has no down migration: %w", version, err)
	}
	return down.Close()
}

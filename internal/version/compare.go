package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks whether a config file written for
// configVersion can be consumed by a toolchain at toolVersion.
//
// Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ
func CheckConfigCompatibility(toolVersion, configVersion string) error {
	toolVersion = strings.TrimPrefix(toolVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if toolVersion == "main" || configVersion == "main" {
		return nil
	}

	toolSemver, err := semver.NewVersion(toolVersion)
	if err != nil {
		return fmt.Errorf("invalid tool version '%s': %w", toolVersion, err)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if toolSemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: tool is %d.x.x but config requires %d.x.x",
			toolSemver.Major(), configSemver.Major())
	}

	if toolSemver.Minor() != configSemver.Minor() {
		return fmt.Errorf("minor version mismatch: tool is %d.%d.x but config requires %d.%d.x",
			toolSemver.Major(), toolSemver.Minor(),
			configSemver.Major(), configSemver.Minor())
	}

	return nil
}

package actions

import (
	"strconv"
	"strings"
)

const (
	versionPrefixConstant           = "v"
	versionSegmentSeparatorConstant = "."
	minimumVersionSegmentCount      = 3
	maximumVersionSegmentCount      = 4
	zeroVersionSegmentConstant      = "0"
)

// NormalizeVersion converts a tag string into canonical form so that
// abbreviated tags compare equal to their expanded forms (v4 == v4.0.0).
// Up to four numeric segments are kept, so build-style tags such as
// v1.2.3.4 survive intact. Non-numeric trailing segments truncate the
// result at the last fully numeric segment. An empty string is returned
// when no leading numeric segment exists.
func NormalizeVersion(rawVersion string) string {
	trimmedVersion := strings.TrimSpace(rawVersion)
	trimmedVersion = strings.TrimPrefix(trimmedVersion, versionPrefixConstant)
	if len(trimmedVersion) == 0 {
		return ""
	}

	numericSegments := make([]string, 0, maximumVersionSegmentCount)
	for _, versionSegment := range strings.Split(trimmedVersion, versionSegmentSeparatorConstant) {
		if !isNumericSegment(versionSegment) {
			break
		}
		numericSegments = append(numericSegments, versionSegment)
		if len(numericSegments) == maximumVersionSegmentCount {
			break
		}
	}
	if len(numericSegments) == 0 {
		return ""
	}

	for len(numericSegments) < minimumVersionSegmentCount {
		numericSegments = append(numericSegments, zeroVersionSegmentConstant)
	}

	return versionPrefixConstant + strings.Join(numericSegments, versionSegmentSeparatorConstant)
}

// VersionsEqual reports whether two tag strings denote the same version under
// normalization. Segments compare numerically with missing segments treated
// as zero, so v4.0 equals v4.0.0 while v1.2.3.4 and v1.2.3.5 stay distinct.
// Two unparseable versions compare by string equality.
func VersionsEqual(firstVersion string, secondVersion string) bool {
	normalizedFirst := NormalizeVersion(firstVersion)
	normalizedSecond := NormalizeVersion(secondVersion)
	if len(normalizedFirst) == 0 || len(normalizedSecond) == 0 {
		return strings.TrimSpace(firstVersion) == strings.TrimSpace(secondVersion)
	}
	return compareVersionSegments(normalizedFirst, normalizedSecond) == 0
}

func compareVersionSegments(firstVersion string, secondVersion string) int {
	firstSegments := strings.Split(strings.TrimPrefix(firstVersion, versionPrefixConstant), versionSegmentSeparatorConstant)
	secondSegments := strings.Split(strings.TrimPrefix(secondVersion, versionPrefixConstant), versionSegmentSeparatorConstant)
	for segmentIndex := 0; segmentIndex < maximumVersionSegmentCount; segmentIndex++ {
		firstValue := numericSegmentValue(firstSegments, segmentIndex)
		secondValue := numericSegmentValue(secondSegments, segmentIndex)
		if firstValue != secondValue {
			if firstValue < secondValue {
				return -1
			}
			return 1
		}
	}
	return 0
}

func numericSegmentValue(versionSegments []string, segmentIndex int) int {
	if segmentIndex >= len(versionSegments) {
		return 0
	}
	segmentValue, parseError := strconv.Atoi(versionSegments[segmentIndex])
	if parseError != nil {
		return 0
	}
	return segmentValue
}

func isNumericSegment(candidateSegment string) bool {
	if len(candidateSegment) == 0 {
		return false
	}
	for _, segmentCharacter := range candidateSegment {
		if segmentCharacter < '0' || segmentCharacter > '9' {
			return false
		}
	}
	return true
}

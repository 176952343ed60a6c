package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
)

const (
	// RuleTypeExists checks that a path exists.
	RuleTypeExists = "exists"
	// RuleTypeRegexPresent checks that a file contains a pattern.
	RuleTypeRegexPresent = "regex_present"
	// RuleTypeTOMLHasPath checks that a TOML file defines a dotted key path.
	RuleTypeTOMLHasPath = "toml_has_path"

	// RuleLevelInfo marks informational findings.
	RuleLevelInfo = "info"
	// RuleLevelWarn marks findings that deserve attention.
	RuleLevelWarn = "warn"

	ruleFileReadErrorTemplateConstant   = "unable to read rule file %s: %w"
	ruleFileParseErrorTemplateConstant  = "unable to parse rule file %s: %w"
	ruleFileDecodeErrorTemplateConstant = "unable to decode rule file %s: %w"
	profileDirectoryNameConstant        = "repo-doctor.d"
	profileFileTemplateConstant         = "%s.toml"
	rulesTableKeyConstant               = "rules"
	doctorTableKeyConstant              = "doctor"
	tomlFileExtensionConstant           = ".toml"
)

// Rule is one declarative repository expectation.
type Rule struct {
	Type     string `mapstructure:"type"`
	Path     string `mapstructure:"path"`
	Pattern  string `mapstructure:"pattern"`
	File     string `mapstructure:"file"`
	Level    string `mapstructure:"level"`
	Category string `mapstructure:"category"`
	Hint     string `mapstructure:"hint"`
	Link     string `mapstructure:"link"`
	Fix      string `mapstructure:"fix"`
	OnlyIf   string `mapstructure:"only_if"`
}

// DoctorSettings holds the optional [doctor] table of a rule file.
type DoctorSettings struct {
	IgnoreMissing []string `mapstructure:"ignore_missing"`
}

// RuleSet aggregates the rules and settings loaded from one or more rule
// files.
type RuleSet struct {
	Settings DoctorSettings
	Rules    []Rule
}

// LoadRuleSet reads the main rule file plus any requested profile from the
// repo-doctor.d directory next to it.
func LoadRuleSet(ruleFilePath string, profileName string) (RuleSet, error) {
	loadedRuleSet, loadError := loadRuleFile(ruleFilePath)
	if loadError != nil {
		return RuleSet{}, loadError
	}

	if len(strings.TrimSpace(profileName)) > 0 {
		profileFilePath := filepath.Join(filepath.Dir(ruleFilePath), profileDirectoryNameConstant, fmt.Sprintf(profileFileTemplateConstant, profileName))
		profileRuleSet, profileError := loadRuleFile(profileFilePath)
		if profileError != nil {
			return RuleSet{}, profileError
		}
		loadedRuleSet.Rules = append(loadedRuleSet.Rules, profileRuleSet.Rules...)
		loadedRuleSet.Settings.IgnoreMissing = append(loadedRuleSet.Settings.IgnoreMissing, profileRuleSet.Settings.IgnoreMissing...)
	}

	return loadedRuleSet, nil
}

// ListProfiles returns the profile names available next to a rule file.
func ListProfiles(ruleFilePath string) []string {
	profileDirectory := filepath.Join(filepath.Dir(ruleFilePath), profileDirectoryNameConstant)
	directoryEntries, readError := os.ReadDir(profileDirectory)
	if readError != nil {
		return nil
	}
	profileNames := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() || filepath.Ext(directoryEntry.Name()) != tomlFileExtensionConstant {
			continue
		}
		profileNames = append(profileNames, strings.TrimSuffix(directoryEntry.Name(), tomlFileExtensionConstant))
	}
	sort.Strings(profileNames)
	return profileNames
}

func loadRuleFile(ruleFilePath string) (RuleSet, error) {
	fileContents, readError := os.ReadFile(ruleFilePath)
	if readError != nil {
		return RuleSet{}, fmt.Errorf(ruleFileReadErrorTemplateConstant, ruleFilePath, readError)
	}

	var parsedDocument map[string]any
	if parseError := toml.Unmarshal(fileContents, &parsedDocument); parseError != nil {
		return RuleSet{}, fmt.Errorf(ruleFileParseErrorTemplateConstant, ruleFilePath, parseError)
	}

	loadedRuleSet := RuleSet{}
	if settingsTable, settingsFound := parsedDocument[doctorTableKeyConstant]; settingsFound {
		if decodeError := mapstructure.Decode(settingsTable, &loadedRuleSet.Settings); decodeError != nil {
			return RuleSet{}, fmt.Errorf(ruleFileDecodeErrorTemplateConstant, ruleFilePath, decodeError)
		}
	}
	if rulesTable, rulesFound := parsedDocument[rulesTableKeyConstant]; rulesFound {
		if decodeError := mapstructure.Decode(rulesTable, &loadedRuleSet.Rules); decodeError != nil {
			return RuleSet{}, fmt.Errorf(ruleFileDecodeErrorTemplateConstant, ruleFilePath, decodeError)
		}
	}

	for ruleIndex := range loadedRuleSet.Rules {
		if len(strings.TrimSpace(loadedRuleSet.Rules[ruleIndex].Level)) == 0 {
			loadedRuleSet.Rules[ruleIndex].Level = RuleLevelWarn
		}
	}

	return loadedRuleSet, nil
}

package definitions

import (
	"fmt"
	"regexp"

	"github.com/Dosada05/league-registration/models"
	"github.com/zeebo/xxh3"
)

const (
	PlayerProfileDir   = "profiles/player"
	ClubProfileDir     = "profiles/club"
	BaseDefinitionPath = "profiles/base.yaml"
	TemplateDir        = "templates"
)

var (
	playerFileRe    = regexp.MustCompile(`^(PP\d+)\.ya?ml$`)
	clubFileRe      = regexp.MustCompile(`^(CAC\d+)\.ya?ml$`)
	clubLooseFileRe = regexp.MustCompile(`(?i)^cac[_-]?(\d+)[^/]*\.ya?ml$`)
)

func profileDir(pt models.ProfileType) string {
	if pt.IsMultiRegistrant() {
		return ClubProfileDir
	}
	return PlayerProfileDir
}

func definitionCandidates(pt models.ProfileType) []string {
	dir := profileDir(pt)
	return []string{
		dir + "/" + string(pt) + ".yaml",
		dir + "/" + string(pt) + ".yml",
	}
}

func templatePath(pt models.ProfileType) string {
	return TemplateDir + "/" + string(pt) + ".html"
}

// profileTypeFromFileName applies the naming convention of the family's
// directory. Club files fall back to the looser convention.
func profileTypeFromFileName(family models.ProfileFamily, name string) (models.ProfileType, bool) {
	switch family {
	case models.FamilyPlayer:
		if m := playerFileRe.FindStringSubmatch(name); m != nil {
			return models.ProfileType(m[1]), true
		}
	case models.FamilyClub:
		if m := clubFileRe.FindStringSubmatch(name); m != nil {
			return models.ProfileType(m[1]), true
		}
		if m := clubLooseFileRe.FindStringSubmatch(name); m != nil {
			return models.ProfileType(string(models.FamilyClub) + m[1]), true
		}
	}
	return "", false
}

// Fingerprint is a short stable hash of file contents, used for traceability only.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))[:12]
}

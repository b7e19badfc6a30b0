package planner

import (
	"github.com/filmio/pageload/internal/common/util"
)

const projectPathPrefix = "/project/"

type project struct {
	Slug string `json:"slug"`
}

// LoadProjectSlugs reads a project listing, e.g. an export of the staging catalogue, and returns the
// path of every project page.
func LoadProjectSlugs(path string) ([]string, error) {
	var projects []project
	if err := util.BindJsonOrYaml(path, &projects); err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Slug == "" {
			continue
		}
		slugs = append(slugs, projectPathPrefix+p.Slug)
	}
	return slugs, nil
}

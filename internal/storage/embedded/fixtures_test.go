package embedded

import "github.com/ragstore/engine/internal/model"

func entityFixture(projectID, name string) model.Entity {
	return model.Entity{
		ProjectID:      projectID,
		Name:           name,
		Type:           "concept",
		Description:    "a " + name,
		SourceChunkIDs: []string{"chunk-1"},
	}
}

func relationFixture(projectID, source, target string) model.Relation {
	return model.Relation{
		ProjectID:      projectID,
		Source:         source,
		Target:         target,
		Type:           model.RelationType,
		Description:    source + " relates to " + target,
		Weight:         1,
		SourceChunkIDs: []string{"chunk-1"},
	}
}

package engine

import (
	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/memory"
)

// exportMemoryJSON serializes the session's working memory for archival.
func exportMemoryJSON(s *core.Session) ([]byte, error) {
	return memory.Marshal(memory.ExportMemory(s.ID(), s.Memory()))
}

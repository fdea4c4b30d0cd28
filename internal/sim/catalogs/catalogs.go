package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"voxelquarry.ai/internal/sim/world/kernel/model"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

// BlockDef describes one material. Breakable=false makes the block
// indestructible to extraction; DropsItem empty means it yields nothing.
type BlockDef struct {
	ID         string `json:"id"`
	Solid      bool   `json:"solid"`
	Breakable  bool   `json:"breakable"`
	DropsItem  string `json:"drops_item,omitempty"`
	DropsCount int    `json:"drops_count,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	cat, err := NewBlockCatalog(defs)
	if err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	cat.DefsDigest = sha256Hex(raw)
	*out = cat
	return nil
}

// NewBlockCatalog builds a catalog from definitions. AIR is required and
// always gets palette id 0; the rest are sorted by id.
func NewBlockCatalog(defs []BlockDef) (BlockCatalog, error) {
	var out BlockCatalog
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return out, fmt.Errorf("empty id")
		}
		if d.DropsItem != "" && d.DropsCount <= 0 {
			d.DropsCount = 1
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs["AIR"]; !ok {
		return out, fmt.Errorf("missing AIR")
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id == "AIR" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ids = append([]string{"AIR"}, ids...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	if out.DefsDigest == "" {
		defsJSON, _ := json.Marshal(defs)
		out.DefsDigest = sha256Hex(defsJSON)
	}
	return out, nil
}

// ID returns the palette id for name, or (0,false) if unknown.
func (c *BlockCatalog) ID(name string) (uint16, bool) {
	v, ok := c.Index[name]
	return v, ok
}

// Name returns the block name for a palette id. Out-of-range ids map to "".
func (c *BlockCatalog) Name(id uint16) string {
	if int(id) >= len(c.Palette) {
		return ""
	}
	return c.Palette[id]
}

// Indestructible reports whether extraction must skip the block. Unknown
// blocks are treated as indestructible.
func (c *BlockCatalog) Indestructible(id uint16) bool {
	name := c.Name(id)
	if name == "" {
		return true
	}
	return !c.Defs[name].Breakable
}

// Yield returns the items produced by breaking the block.
func (c *BlockCatalog) Yield(id uint16) []model.ItemStack {
	d, ok := c.Defs[c.Name(id)]
	if !ok || d.DropsItem == "" {
		return nil
	}
	return []model.ItemStack{{Item: d.DropsItem, Count: d.DropsCount}}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

package cache

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CacheType identifies an engine build family. The numeric value doubles as
// the version selector of every record layout, so the declaration order is
// significant: layouts select on ranges of these values.
type CacheType int

// Unknown is the cache type of unrecognised builds.
const Unknown CacheType = -1

const (
	Halo1Xbox CacheType = iota
	Halo1PC
	Halo1CE
	Halo1AE
	MccHalo1

	Halo2Beta
	Halo2Xbox
	Halo2Vista
	MccHalo2

	Halo3Alpha
	Halo3Delta
	Halo3Beta
	Halo3Retail
	MccHalo3
	MccHalo3U4
	MccHalo3F6
	MccHalo3U6
	MccHalo3U9
	MccHalo3U12
	MccHalo3U13

	Halo3ODST
	MccHalo3ODST
	MccHalo3ODSTF3
	MccHalo3ODSTU3
	MccHalo3ODSTU4
	MccHalo3ODSTU7
	MccHalo3ODSTU8

	HaloReachBeta
	HaloReachRetail
	MccHaloReach
	MccHaloReachU3
	MccHaloReachU8
	MccHaloReachU10
	MccHaloReachU13

	cacheTypeCount
)

// Game is the title a cache belongs to.
type Game int

const (
	Halo1 Game = iota
	Halo2
	Halo3
	Halo3ODSTGame
	HaloReach
)

var gameNames = [...]string{"halo1", "halo2", "halo3", "halo3odst", "haloreach"}

func (g Game) String() string {
	if g < 0 || int(g) >= len(gameNames) {
		return fmt.Sprintf("game(%d)", int(g))
	}
	return gameNames[g]
}

// Generation groups games that share a tag index format.
type Generation int

const (
	Gen1 Generation = iota + 1
	Gen2
	Gen3
)

// Platform is the platform a cache was built for.
type Platform int

const (
	Xbox Platform = iota
	Xbox360
	PC
)

var platformNames = [...]string{"xbox", "xbox360", "pc"}

func (p Platform) String() string {
	if p < 0 || int(p) >= len(platformNames) {
		return fmt.Sprintf("platform(%d)", int(p))
	}
	return platformNames[p]
}

// Flags describe release state.
type Flags uint8

const (
	PreBeta Flags = 1 << iota
	Beta
	Flight
	Anniversary
	Mcc
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{PreBeta, "prebeta"},
	{Beta, "beta"},
	{Flight, "flight"},
	{Anniversary, "anniversary"},
	{Mcc, "mcc"},
}

func (f Flags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// UnmarshalYAML accepts a list of flag names.
func (f *Flags) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	var out Flags
	for _, name := range names {
		found := false
		for _, n := range flagNames {
			if n.name == name {
				out |= n.flag
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown cache flag %q", name)
		}
	}
	*f = out
	return nil
}

type cacheTypeInfo struct {
	name     string
	game     Game
	platform Platform
	flags    Flags
}

var cacheTypes = [cacheTypeCount]cacheTypeInfo{
	Halo1Xbox: {"Halo1Xbox", Halo1, Xbox, 0},
	Halo1PC:   {"Halo1PC", Halo1, PC, 0},
	Halo1CE:   {"Halo1CE", Halo1, PC, 0},
	Halo1AE:   {"Halo1AE", Halo1, Xbox360, Anniversary},
	MccHalo1:  {"MccHalo1", Halo1, PC, Anniversary | Mcc},

	Halo2Beta:  {"Halo2Beta", Halo2, Xbox, Beta},
	Halo2Xbox:  {"Halo2Xbox", Halo2, Xbox, 0},
	Halo2Vista: {"Halo2Vista", Halo2, PC, 0},
	MccHalo2:   {"MccHalo2", Halo2, PC, Anniversary | Mcc},

	Halo3Alpha:  {"Halo3Alpha", Halo3, Xbox360, PreBeta},
	Halo3Delta:  {"Halo3Delta", Halo3, Xbox360, PreBeta},
	Halo3Beta:   {"Halo3Beta", Halo3, Xbox360, Beta},
	Halo3Retail: {"Halo3Retail", Halo3, Xbox360, 0},
	MccHalo3:    {"MccHalo3", Halo3, PC, Mcc},
	MccHalo3U4:  {"MccHalo3U4", Halo3, PC, Mcc},
	MccHalo3F6:  {"MccHalo3F6", Halo3, PC, Mcc | Flight},
	MccHalo3U6:  {"MccHalo3U6", Halo3, PC, Mcc},
	MccHalo3U9:  {"MccHalo3U9", Halo3, PC, Mcc},
	MccHalo3U12: {"MccHalo3U12", Halo3, PC, Mcc},
	MccHalo3U13: {"MccHalo3U13", Halo3, PC, Mcc},

	Halo3ODST:      {"Halo3ODST", Halo3ODSTGame, Xbox360, 0},
	MccHalo3ODST:   {"MccHalo3ODST", Halo3ODSTGame, PC, Mcc},
	MccHalo3ODSTF3: {"MccHalo3ODSTF3", Halo3ODSTGame, PC, Mcc | Flight},
	MccHalo3ODSTU3: {"MccHalo3ODSTU3", Halo3ODSTGame, PC, Mcc},
	MccHalo3ODSTU4: {"MccHalo3ODSTU4", Halo3ODSTGame, PC, Mcc},
	MccHalo3ODSTU7: {"MccHalo3ODSTU7", Halo3ODSTGame, PC, Mcc},
	MccHalo3ODSTU8: {"MccHalo3ODSTU8", Halo3ODSTGame, PC, Mcc},

	HaloReachBeta:   {"HaloReachBeta", HaloReach, Xbox360, Beta},
	HaloReachRetail: {"HaloReachRetail", HaloReach, Xbox360, 0},
	MccHaloReach:    {"MccHaloReach", HaloReach, PC, Mcc},
	MccHaloReachU3:  {"MccHaloReachU3", HaloReach, PC, Mcc},
	MccHaloReachU8:  {"MccHaloReachU8", HaloReach, PC, Mcc},
	MccHaloReachU10: {"MccHaloReachU10", HaloReach, PC, Mcc},
	MccHaloReachU13: {"MccHaloReachU13", HaloReach, PC, Mcc},
}

func (c CacheType) info() (cacheTypeInfo, bool) {
	if c < 0 || c >= cacheTypeCount {
		return cacheTypeInfo{}, false
	}
	return cacheTypes[c], true
}

// Valid reports whether c is a known cache type.
func (c CacheType) Valid() bool {
	_, ok := c.info()
	return ok
}

func (c CacheType) String() string {
	if c == Unknown {
		return "Unknown"
	}
	if i, ok := c.info(); ok {
		return i.name
	}
	return fmt.Sprintf("CacheType(%d)", int(c))
}

// Game returns the title of the cache type.
func (c CacheType) Game() Game {
	i, _ := c.info()
	return i.game
}

// Generation returns the tag index generation of the cache type.
func (c CacheType) Generation() Generation {
	if !c.Valid() {
		return 0
	}
	switch c.Game() {
	case Halo1:
		return Gen1
	case Halo2:
		return Gen2
	default:
		return Gen3
	}
}

// Platform returns the target platform of the cache type.
func (c CacheType) Platform() Platform {
	i, _ := c.info()
	return i.platform
}

// Flags returns the release flags of the cache type.
func (c CacheType) Flags() Flags {
	i, _ := c.info()
	return i.flags
}

// IsMcc reports whether the cache type belongs to the Master Chief
// Collection.
func (c CacheType) IsMcc() bool {
	return c.Flags()&Mcc != 0
}

// ParseCacheType returns the cache type named s. Matching ignores case.
func ParseCacheType(s string) (CacheType, error) {
	if strings.EqualFold(s, "unknown") {
		return Unknown, nil
	}
	for i, info := range cacheTypes {
		if strings.EqualFold(info.name, s) {
			return CacheType(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown cache type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c CacheType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CacheType) UnmarshalText(text []byte) error {
	v, err := ParseCacheType(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CacheType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(s))
}

package resource

import "strings"

// Language tags the toolchain a resource belongs to.
type Language string

const (
	None Language = ""
	C    Language = "c"
	CPP  Language = "c++"
	ASM  Language = "asm"
)

var extLanguages = map[string]Language{
	".c":   C,
	".cc":  CPP,
	".cpp": CPP,
	".cxx": CPP,
	".C":   CPP,
	".s":   ASM,
	".S":   ASM,
}

// LanguageOf returns the language of a source file from its extension, or
// None if the extension is not compiled.
func LanguageOf(file string) Language {
	idx := strings.LastIndexByte(file, '.')
	if idx < 0 {
		return None
	}
	return extLanguages[file[idx:]]
}

// Languages is the fixed order in which per-language outputs are written.
var Languages = []Language{C, CPP, ASM}

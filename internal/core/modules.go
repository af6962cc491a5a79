package core

// ContentModule is one of the fixed content categories the analysis stage
// may detect in a document. Later stages partition their work by module.
type ContentModule string

const (
	ModuleThemes             ContentModule = "themes"
	ModuleVocabulary         ContentModule = "vocabulary"
	ModuleImagesList         ContentModule = "images_list"
	ModuleImagesDescriptions ContentModule = "images_descriptions"
	ModuleTables             ContentModule = "tables"
	ModuleMathFormulas       ContentModule = "math_formulas"
	ModuleCode               ContentModule = "code"
)

// AllModules returns the module enumeration in canonical order.
func AllModules() []ContentModule {
	return []ContentModule{
		ModuleThemes,
		ModuleVocabulary,
		ModuleImagesList,
		ModuleImagesDescriptions,
		ModuleTables,
		ModuleMathFormulas,
		ModuleCode,
	}
}

// DefaultExcludedModules are skipped by card generation unless the caller
// asks for an explicit module set. Image modules produce media references,
// not text cards.
func DefaultExcludedModules() []ContentModule {
	return []ContentModule{ModuleImagesList, ModuleImagesDescriptions}
}

// IsValidModule reports whether name belongs to the module enumeration.
func IsValidModule(name string) bool {
	switch ContentModule(name) {
	case ModuleThemes, ModuleVocabulary, ModuleImagesList,
		ModuleImagesDescriptions, ModuleTables, ModuleMathFormulas, ModuleCode:
		return true
	}
	return false
}

// FilterValidModules keeps only names present in the module enumeration,
// preserving order and dropping duplicates.
func FilterValidModules(names []string) []ContentModule {
	seen := make(map[string]bool, len(names))
	out := make([]ContentModule, 0, len(names))
	for _, n := range names {
		if !IsValidModule(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, ContentModule(n))
	}
	return out
}

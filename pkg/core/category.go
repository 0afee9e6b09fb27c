// pkg/core/category.go
package core

import "time"

// AccessRules describe who may see a category published to the catalog.
type AccessRules uint8

const (
	AccessLocal AccessRules = iota
	AccessPublic
	AccessDirectLink
	AccessP2P
	AccessPaid
	AccessAuthorOnly
)

var accessRulesNames = [...]string{"Local", "Public", "DirectLink", "P2P", "Paid", "AuthorOnly"}

func (a AccessRules) String() string {
	if int(a) >= len(accessRulesNames) {
		return "Local"
	}
	return accessRulesNames[a]
}

// ParseAccessRules is the inverse of String. Unknown names map to AccessLocal.
func ParseAccessRules(s string) AccessRules {
	for i, name := range accessRulesNames {
		if name == s {
			return AccessRules(i)
		}
	}
	return AccessLocal
}

// CompilationType distinguishes a category from its nested compilations.
type CompilationType uint8

const (
	CompilationCategory CompilationType = iota
	CompilationCollection
	CompilationDay
)

var compilationTypeNames = [...]string{"Category", "Collection", "Day"}

func (c CompilationType) String() string {
	if int(c) >= len(compilationTypeNames) {
		return "Category"
	}
	return compilationTypeNames[c]
}

// ParseCompilationType is the inverse of String.
func ParseCompilationType(s string) CompilationType {
	for i, name := range compilationTypeNames {
		if name == s {
			return CompilationType(i)
		}
	}
	return CompilationCategory
}

// CategoryData is the serializable state of a category or compilation.
type CategoryData struct {
	ID            GroupID
	CompilationID uint64
	Type          CompilationType
	Name          LocalizableString
	Annotation    LocalizableString
	Description   LocalizableString
	ImageURL      string
	Visible       bool
	AuthorName    string
	AuthorID      string
	LastModified  time.Time
	Rating        float64
	ReviewsNumber uint32
	AccessRules   AccessRules
	Tags          []string
	Toponyms      []string
	Languages     []string
	Properties    map[string]string

	// CompilationIDs lists the file-local ids of nested compilations.
	CompilationIDs []uint64
}

// Clone returns a deep copy.
func (c CategoryData) Clone() CategoryData {
	out := c
	out.Name = c.Name.Clone()
	out.Annotation = c.Annotation.Clone()
	out.Description = c.Description.Clone()
	out.Tags = append([]string(nil), c.Tags...)
	out.Toponyms = append([]string(nil), c.Toponyms...)
	out.Languages = append([]string(nil), c.Languages...)
	out.CompilationIDs = append([]uint64(nil), c.CompilationIDs...)
	out.Properties = cloneProperties(c.Properties)
	return out
}

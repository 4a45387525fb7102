package domain

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Next cycles light -> dark -> system -> light.
func (t Theme) Next() Theme {
	switch t {
	case ThemeLight:
		return ThemeDark
	case ThemeDark:
		return ThemeSystem
	default:
		return ThemeLight
	}
}

type Tab string

const (
	TabChat   Tab = "chat"
	TabCreate Tab = "create"
)

func (t Tab) Valid() bool {
	return t == TabChat || t == TabCreate
}

// ImageFlag names one of the boolean image options.
type ImageFlag string

const (
	FlagNoLogo  ImageFlag = "nologo"
	FlagEnhance ImageFlag = "enhance"
	FlagSafe    ImageFlag = "safe"
	FlagPrivate ImageFlag = "private"
)

var ImageFlags = []ImageFlag{FlagNoLogo, FlagEnhance, FlagSafe, FlagPrivate}

func ParseImageFlag(s string) (ImageFlag, bool) {
	for _, f := range ImageFlags {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

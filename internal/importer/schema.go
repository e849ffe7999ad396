package importer

// bookmarkEntry is a single bookmark in a Homepage bookmarks.yaml.
type bookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// bookmarksConfig is the root of bookmarks.yaml:
// - Category: [ - Name: [ {icon, abbr, href} ] ]
type bookmarksConfig []map[string][]map[string][]bookmarkEntry

// serviceProps holds the fields of a services.yaml entry we care about.
type serviceProps struct {
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
}

// servicesConfig is the root of services.yaml:
// - Category: [ - Name: {href, ...} ]
type servicesConfig []map[string][]map[string]serviceProps

// Entry is one importable link.
type Entry struct {
	Category string
	Name     string
	URL      string
}

// Package titles parses the two title shapes the pipeline meets: the
// bracket-grammar feed title ("[category]Main Title[Subtitle Block]") and
// the filename-style release name the optimal-pick resolver compares
// variants with. Both parsers degrade to empty fields on unparsable input
// and never return errors.
package titles

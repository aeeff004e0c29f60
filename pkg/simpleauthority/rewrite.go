package simpleauthority

// RewriteStatements relinks every statement on field that points at oldID
// to newID and sets its value to value. Statement order is preserved.
// It returns the number of statements changed; applying it a second time
// with the same arguments changes nothing.
func RewriteStatements(item *ContentItem, field, oldID, newID, value string) int {
	if item == nil || oldID == "" {
		return 0
	}
	changed := 0
	for i := range item.Statements {
		st := &item.Statements[i]
		if st.Field != field || st.Authority != oldID {
			continue
		}
		st.Authority = newID
		st.Value = value
		changed++
	}
	return changed
}

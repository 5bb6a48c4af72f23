package records

// Record is one definition in the keeper.
type Record struct {
	name    string
	id      int64
	classes []*Class
	fields  map[string]Value
	keeper  *Keeper
}

// Name returns the definition name.
func (r *Record) Name() string {
	return r.name
}

// ID returns the declaration-order ID assigned when the record was added.
func (r *Record) ID() int64 {
	return r.id
}

// Classes returns the names of the classes the record was declared with.
func (r *Record) Classes() []string {
	names := make([]string, len(r.classes))
	for i, c := range r.classes {
		names[i] = c.Name
	}
	return names
}

// IsSubClassOf reports whether any of the record's classes is or derives from class.
// A nil class (e.g. from GetClass on an unknown name) matches nothing.
func (r *Record) IsSubClassOf(class *Class) bool {
	for _, c := range r.classes {
		if c.IsSubClassOf(class) {
			return true
		}
	}
	return false
}

// HasField reports whether the record defines field.
func (r *Record) HasField(field string) bool {
	_, ok := r.fields[field]
	return ok
}

func (r *Record) value(field string, want ValueKind) (Value, error) {
	v, ok := r.fields[field]
	if !ok {
		return Value{}, &FieldError{Record: r.name, Field: field, Err: ErrMissingField}
	}
	if v.Kind != want {
		return Value{}, &FieldError{Record: r.name, Field: field, Err: ErrInvalidFieldType, Want: want, Got: v.Kind}
	}
	return v, nil
}

// ValueAsString returns a string field. Fails if the field is absent or not a string.
func (r *Record) ValueAsString(field string) (string, error) {
	v, err := r.value(field, KindString)
	if err != nil {
		return "", err
	}
	return v.str, nil
}

// ValueAsOptionalString returns a string field, or "" when it is absent.
// A present field of another kind is still an error.
func (r *Record) ValueAsOptionalString(field string) (string, error) {
	if !r.HasField(field) {
		return "", nil
	}
	return r.ValueAsString(field)
}

// ValueAsBit returns a bit field. Fails if the field is absent or not a bit.
func (r *Record) ValueAsBit(field string) (bool, error) {
	v, err := r.value(field, KindBit)
	if err != nil {
		return false, err
	}
	return v.bit, nil
}

// ValueAsDef resolves a reference field to the record it names.
func (r *Record) ValueAsDef(field string) (*Record, error) {
	v, err := r.value(field, KindDef)
	if err != nil {
		return nil, err
	}
	target := r.keeper.GetDef(v.str)
	if target == nil {
		return nil, &FieldError{Record: r.name, Field: field, Err: ErrUnresolvedReference, Target: v.str}
	}
	return target, nil
}

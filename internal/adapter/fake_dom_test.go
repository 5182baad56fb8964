package adapter

import (
	"context"
	"errors"
	"strings"
)

// fakeDOM serves selector lookups from maps. Selectors absent from the maps
// behave like missing nodes: Exists is false, Text and Attr are empty.
type fakeDOM struct {
	texts    map[string]string
	attrs    map[string]string
	title    string
	location string
	failAll  bool
}

var errDOMGone = errors.New("target closed")

func (d *fakeDOM) Exists(_ context.Context, selector string) (bool, error) {
	if d.failAll {
		return false, errDOMGone
	}
	if _, ok := d.texts[selector]; ok {
		return true, nil
	}
	for key := range d.attrs {
		if strings.HasPrefix(key, selector+"@") {
			return true, nil
		}
	}
	return false, nil
}

func (d *fakeDOM) Text(_ context.Context, selector string) (string, error) {
	if d.failAll {
		return "", errDOMGone
	}
	return d.texts[selector], nil
}

func (d *fakeDOM) Attr(_ context.Context, selector, name string) (string, error) {
	if d.failAll {
		return "", errDOMGone
	}
	return d.attrs[selector+"@"+name], nil
}

func (d *fakeDOM) Title(context.Context) (string, error) {
	if d.failAll {
		return "", errDOMGone
	}
	return d.title, nil
}

func (d *fakeDOM) Location(context.Context) (string, error) {
	return d.location, nil
}

func (d *fakeDOM) HTML(context.Context) (string, error) {
	return "", nil
}

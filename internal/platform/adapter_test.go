package platform

import (
	"net/http"
	"reflect"
	"testing"
)

func TestRegistry_LookupAndPlatforms(t *testing.T) {
	client := http.DefaultClient
	registry := NewRegistry(
		NewXAdapter(client, ""),
		NewLinkedInAdapter(client, ""),
		NewFacebookAdapter(client, ""),
		NewInstagramAdapter(client, ""),
	)

	if _, ok := registry.Lookup("x"); !ok {
		t.Error("x adapter should be registered")
	}
	if _, ok := registry.Lookup("myspace"); ok {
		t.Error("unregistered platform should not resolve")
	}

	want := []string{"facebook", "instagram", "linkedin", "x"}
	if got := registry.Platforms(); !reflect.DeepEqual(got, want) {
		t.Errorf("platforms = %v, want %v", got, want)
	}
}

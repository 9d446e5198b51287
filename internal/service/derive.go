package service

import (
	"context"

	"variant-server/internal/srcset"
	"variant-server/internal/variant"
)

// Derive implements srcset.Deriver: one rung of the width ladder becomes a
// servable URL, generated or enqueued by the same rules as Resolve.
func (s *Service) Derive(src variant.Source, width, height int, opts variant.Options) (string, error) {
	req := variant.Request{Width: width, Height: height, Options: opts}
	d, err := s.materialize(context.Background(), src, req)
	if err != nil {
		return "", err
	}
	return d.URL, nil
}

// Srcset resolves the request and derives the full width ladder as a srcset
// attribute value.
func (s *Service) Srcset(sourcePath string, widthArg, heightArg, optionsArg any) (string, error) {
	src, req, err := s.resolveFor(sourcePath, widthArg, heightArg, optionsArg)
	if err != nil {
		return "", err
	}
	return s.builder.Srcset(s, src, req)
}

// Attrs resolves the request and assembles the full img attribute set.
func (s *Service) Attrs(sourcePath string, widthArg, heightArg, optionsArg any) (srcset.Attrs, error) {
	src, req, err := s.resolveFor(sourcePath, widthArg, heightArg, optionsArg)
	if err != nil {
		return srcset.Attrs{}, err
	}
	return s.builder.Attrs(s, src, req)
}

func (s *Service) resolveFor(sourcePath string, widthArg, heightArg, optionsArg any) (variant.Source, variant.Request, error) {
	src, err := s.source(sourcePath)
	if err != nil {
		return variant.Source{}, variant.Request{}, err
	}

	req, err := s.resolver.Resolve(widthArg, heightArg, optionsArg, src)
	if err != nil {
		return variant.Source{}, variant.Request{}, err
	}
	// A sizeless request stays sizeless here: the builder's base fallback
	// caps at the source's native width, which the default-breakpoint
	// substitution would defeat for sources narrower than the breakpoint.
	return src, req, nil
}

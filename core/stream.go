package core

import (
	"fmt"
	"io"

	"github.com/tsawler/pdfstream/internal/filters"
)

// Filters returns the stream's filter names in decoding order and the decode
// parameters of each. Filter may be a single name or an array; DecodeParms a
// dictionary, an array of dictionaries and nulls, or absent. A single
// dictionary given with a filter array applies to every filter.
func (s *Stream) Filters() ([]string, []filters.Params, error) {
	filterObj := s.Dict.Get("Filter")
	paramsObj := s.Dict.Get("DecodeParms")

	var names []string
	switch f := filterObj.(type) {
	case nil, Null:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, obj := range f {
			n, ok := obj.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is not a name: %T", i, obj)
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, fmt.Errorf("invalid Filter type: %T", filterObj)
	}

	params := make([]filters.Params, len(names))
	if arr, ok := paramsObj.(Array); ok {
		for i := range names {
			params[i] = dictToParams(paramsObjToDict(arr.Get(i)))
		}
	} else {
		p := dictToParams(paramsObjToDict(paramsObj))
		for i := range params {
			params[i] = p
		}
	}
	return names, params, nil
}

// Decode decodes the stream with the built-in filters. Unknown filters pass
// the data through. Encrypted streams need Reader with an Env carrying the
// document's security handler.
func (s *Stream) Decode() ([]byte, error) {
	r, err := s.Reader(&filters.Env{Ref: s.Ref.ObjectRef()})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Reader returns the decode chain for the stream. env.Ref is set from the
// stream's reference when it is zero. The caller must close the result.
func (s *Stream) Reader(env *filters.Env) (filters.Source, error) {
	names, params, err := s.Filters()
	if err != nil {
		return nil, err
	}
	if env != nil && env.Ref == (filters.ObjectRef{}) {
		e := *env
		e.Ref = s.Ref.ObjectRef()
		env = &e
	}
	return filters.BuildDecodeChain(filters.NewBytesSource(s.Data), names, params, env, nil)
}

// paramsObjToDict converts a DecodeParms entry to a Dict. Null and anything
// other than a dictionary mean no parameters.
func paramsObjToDict(obj Object) Dict {
	if dict, ok := obj.(Dict); ok {
		return dict
	}
	return nil
}

// dictToParams converts a core.Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}

package catalogapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

func decodePage(data []byte) (*product.Page, error) {
	var p product.Page
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				var pr product.Product
				if err := decodeProduct(d, &pr); err != nil {
					return err
				}
				p.Products = append(p.Products, pr)
				return nil
			})
		case "total":
			p.Total, err = d.Int()
		case "skip":
			p.Skip, err = d.Int()
		case "limit":
			p.Limit, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeProductBytes(data []byte) (*product.Product, error) {
	var p product.Product
	if err := decodeProduct(jx.DecodeBytes(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeProduct(d *jx.Decoder, p *product.Product) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "title":
			p.Title, err = optString(d)
		case "price":
			raw, rerr := d.Raw()
			if rerr != nil {
				return rerr
			}
			if err := p.Price.UnmarshalJSON(raw); err != nil {
				return errors.Wrap(err, "price")
			}
		case "description":
			p.Description, err = optString(d)
		case "thumbnail":
			p.Thumbnail, err = optString(d)
		case "category":
			p.Category, err = optString(d)
		case "images":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				if err != nil {
					return err
				}
				p.Images = append(p.Images, s)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
}

// decodeCategories accepts both the legacy string array and the newer
// [{"slug":...,"name":...,"url":...}] shape.
func decodeCategories(data []byte) ([]string, error) {
	cats := []string{}
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			cats = append(cats, s)
			return nil
		case jx.Object:
			var slug, name string
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "slug":
					slug, err = optString(d)
				case "name":
					name, err = optString(d)
				default:
					return d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			if slug == "" {
				slug = name
			}
			if slug != "" {
				cats = append(cats, slug)
			}
			return nil
		default:
			return errors.Errorf("unexpected category element %s", d.Next())
		}
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

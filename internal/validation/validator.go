package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// every cart line must name a different product
	v.RegisterStructValidation(cartStructValidation, CartRequest{})

	return v
}

func cartStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CartRequest)

	seen := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			continue
		}
		if seen[it.ProductID] {
			sl.ReportError(req.Items, "items", "Items", "distinct_products", it.ProductID)
			return
		}
		seen[it.ProductID] = true
	}
}

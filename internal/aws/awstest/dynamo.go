// Package awstest provides in-memory stand-ins for the AWS clients used by
// the service. The DynamoDB fake understands only the small expression
// dialect the stores actually emit:
//
//   - conditions: attribute_exists(a), attribute_not_exists(a), a = :v
//   - updates:    SET a = :v, b = if_not_exists(b, :v)
//   - key/filter: a = :v, a IN (:v1, :v2)
//
// Clauses may be joined with AND.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type index struct {
	pk, sk string
}

type table struct {
	pk, sk  string
	indexes map[string]index
	items   map[string]map[string]types.AttributeValue
}

// Dynamo is an in-memory DynamoDB fake. It is safe for concurrent use.
type Dynamo struct {
	mu     sync.Mutex
	tables map[string]*table
	fail   map[string]error
	calls  map[string]int
}

// NewDynamo returns an empty fake with no tables.
func NewDynamo() *Dynamo {
	return &Dynamo{
		tables: map[string]*table{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

// CreateTable registers a table with partition key pk and optional sort key sk.
func (d *Dynamo) CreateTable(name, pk, sk string) *Dynamo {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &table{
		pk:      pk,
		sk:      sk,
		indexes: map[string]index{},
		items:   map[string]map[string]types.AttributeValue{},
	}
	return d
}

// CreateIndex registers a global secondary index on an existing table.
func (d *Dynamo) CreateIndex(tableName, indexName, pk, sk string) *Dynamo {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[tableName].indexes[indexName] = index{pk: pk, sk: sk}
	return d
}

// Fail makes every subsequent call of op ("GetItem", "Query", ...) return
// err. A nil err clears the failure.
func (d *Dynamo) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fail, op)
		return
	}
	d.fail[op] = err
}

// Calls reports how many times op was invoked.
func (d *Dynamo) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Items returns a snapshot of every item in a table.
func (d *Dynamo) Items(tableName string) []map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[tableName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyItem(t.items[k]))
	}
	return out
}

// Seed writes item directly, bypassing conditions.
func (d *Dynamo) Seed(tableName string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.tables[tableName]
	t.items[t.keyOf(item)] = copyItem(item)
}

func (d *Dynamo) enter(op string) error {
	d.calls[op]++
	return d.fail[op]
}

func (d *Dynamo) lookup(name *string) (*table, error) {
	if name == nil {
		return nil, errors.New("missing table name")
	}
	t, ok := d.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: name}
	}
	return t, nil
}

func (t *table) keyOf(item map[string]types.AttributeValue) string {
	k := avString(item[t.pk])
	if t.sk != "" {
		k += "\x00" + avString(item[t.sk])
	}
	return k
}

func (d *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("GetItem"); err != nil {
		return nil, err
	}
	t, err := d.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.keyOf(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (d *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("PutItem"); err != nil {
		return nil, err
	}
	t, err := d.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOf(params.Item)
	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, t.items[key], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	t.items[key] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := d.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOf(params.Key)
	current := t.items[key]
	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, current, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	next := copyItem(current)
	if next == nil {
		next = copyItem(params.Key)
	}
	if params.UpdateExpression != nil {
		if err := applyUpdate(*params.UpdateExpression, next, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	t.items[key] = next
	return &dyn.UpdateItemOutput{Attributes: copyItem(next)}, nil
}

func (d *Dynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Query"); err != nil {
		return nil, err
	}
	t, err := d.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	sk := t.sk
	if params.IndexName != nil {
		idx, ok := t.indexes[*params.IndexName]
		if !ok {
			return nil, fmt.Errorf("unknown index %s", *params.IndexName)
		}
		sk = idx.sk
	}
	if params.KeyConditionExpression == nil {
		return nil, errors.New("missing key condition")
	}

	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		ok, err := evalCondition(*params.KeyConditionExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if params.FilterExpression != nil {
			ok, err = evalCondition(*params.FilterExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, copyItem(item))
	}
	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := avString(matched[i][sk]), avString(matched[j][sk])
		if forward {
			return a < b
		}
		return a > b
	})
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}
	return &dyn.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (d *Dynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Scan"); err != nil {
		return nil, err
	}
	t, err := d.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var items []map[string]types.AttributeValue
	for _, k := range keys {
		item := t.items[k]
		if params.FilterExpression != nil {
			ok, err := evalCondition(*params.FilterExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		items = append(items, copyItem(item))
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (d *Dynamo) BatchWriteItem(ctx context.Context, params *dyn.BatchWriteItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchWriteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("BatchWriteItem"); err != nil {
		return nil, err
	}
	total := 0
	for _, reqs := range params.RequestItems {
		total += len(reqs)
	}
	if total > 25 {
		return nil, fmt.Errorf("batch write of %d items exceeds 25", total)
	}
	for name, reqs := range params.RequestItems {
		t, err := d.lookup(&name)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				t.items[t.keyOf(r.PutRequest.Item)] = copyItem(r.PutRequest.Item)
			case r.DeleteRequest != nil:
				delete(t.items, t.keyOf(r.DeleteRequest.Key))
			}
		}
	}
	return &dyn.BatchWriteItemOutput{}, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("TransactWriteItems"); err != nil {
		return nil, err
	}
	// First pass: verify condition expressions.
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			return nil, errors.New("only Put is supported in transactions")
		}
		t, err := d.lookup(p.TableName)
		if err != nil {
			return nil, err
		}
		if p.ConditionExpression != nil {
			ok, err := evalCondition(*p.ConditionExpression, t.items[t.keyOf(p.Item)], p.ExpressionAttributeNames, p.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}
	// Second pass: apply all puts.
	for _, it := range params.TransactItems {
		t, _ := d.lookup(it.Put.TableName)
		t.items[t.keyOf(it.Put.Item)] = copyItem(it.Put.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, clause := range splitTopLevel(expr, " AND ") {
		ok, err := evalClause(strings.TrimSpace(clause), item, names, values)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalClause(clause string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	switch {
	case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
		attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
		_, ok := item[attr]
		return !ok, nil
	case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
		attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
		_, ok := item[attr]
		return ok, nil
	case strings.Contains(clause, " IN "):
		parts := strings.SplitN(clause, " IN ", 2)
		attr := resolve(strings.TrimSpace(parts[0]), names)
		list := strings.Trim(strings.TrimSpace(parts[1]), "()")
		got, ok := item[attr]
		if !ok {
			return false, nil
		}
		for _, ph := range strings.Split(list, ",") {
			want, ok := values[strings.TrimSpace(ph)]
			if !ok {
				return false, fmt.Errorf("missing value %s", ph)
			}
			if avEqual(got, want) {
				return true, nil
			}
		}
		return false, nil
	case strings.Contains(clause, " = "):
		parts := strings.SplitN(clause, " = ", 2)
		attr := resolve(strings.TrimSpace(parts[0]), names)
		want, ok := values[strings.TrimSpace(parts[1])]
		if !ok {
			return false, fmt.Errorf("missing value %s", parts[1])
		}
		got, ok := item[attr]
		return ok && avEqual(got, want), nil
	}
	return false, fmt.Errorf("unsupported expression %q", clause)
}

func applyUpdate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("unsupported update %q", expr)
	}
	for _, assign := range splitTopLevel(strings.TrimPrefix(expr, "SET "), ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bad assignment %q", assign)
		}
		attr := resolve(strings.TrimSpace(parts[0]), names)
		rhs := strings.TrimSpace(parts[1])
		if strings.HasPrefix(rhs, "if_not_exists(") {
			args := strings.Split(strings.TrimSuffix(strings.TrimPrefix(rhs, "if_not_exists("), ")"), ",")
			if len(args) != 2 {
				return fmt.Errorf("bad if_not_exists %q", rhs)
			}
			if _, ok := item[resolve(strings.TrimSpace(args[0]), names)]; ok {
				continue
			}
			rhs = strings.TrimSpace(args[1])
		}
		v, ok := values[rhs]
		if !ok {
			return fmt.Errorf("missing value %s", rhs)
		}
		item[attr] = v
	}
	return nil
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses.
func splitTopLevel(s, sep string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			out = append(out, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(out, s[start:])
}

func resolve(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if n, ok := names[name]; ok {
			return n
		}
	}
	return name
}

func avString(v types.AttributeValue) string {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprint(tv.Value)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func avEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

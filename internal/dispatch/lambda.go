package dispatch

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/pkg/errors"

	"github.com/filmio/pageload/pkg/api"
)

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaDispatcher launches each worker as an asynchronous (Event) invocation of a Lambda function.
type LambdaDispatcher struct {
	client lambdaInvoker
}

func NewLambdaDispatcher(client lambdaInvoker) *LambdaDispatcher {
	return &LambdaDispatcher{client: client}
}

func NewLambdaDispatcherFromRegion(ctx context.Context, region string) (*LambdaDispatcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewLambdaDispatcher(lambda.NewFromConfig(cfg)), nil
}

func (d *LambdaDispatcher) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	out, err := d.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionId),
		InvocationType: types.InvocationTypeEvent,
		Payload:        data,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if out.FunctionError != nil {
		return errors.Errorf("lambda %s rejected invocation: %s", functionId, aws.ToString(out.FunctionError))
	}
	return nil
}
